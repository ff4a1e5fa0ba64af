package ndi

// The NDI SDK's NDIlib_source_t.p_ndi_name is a raw pointer into
// caller-owned memory; the SDK does not copy the string. A historical
// bug class in NDI bindings passes a C string as a short-lived
// temporary (e.g. via a defer'd free right after the create call) and
// ends up with the receiver holding a pointer into freed memory the
// first time the SDK internally re-reads the source descriptor (on
// reconnect, on a status-change callback, etc). The cgo receiver type
// in ndi_cgo.go avoids this by keeping its *C.char buffers as fields
// on the Receiver for its entire lifetime, freeing them only in Close.
