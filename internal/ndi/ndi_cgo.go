//go:build ndi

package ndi

/*
#cgo CFLAGS: -I${SRCDIR}/include
#cgo linux LDFLAGS: -L/usr/lib -lndi
#cgo darwin LDFLAGS: -L/Library/NDI\ SDK\ for\ Apple/lib/macOS -lndi
#cgo windows LDFLAGS: -L"C:/Program Files/NDI/NDI 5 SDK/Lib/x64" -lProcessing.NDI.Lib.x64

#include <stdlib.h>
#include <stdbool.h>
#include <stdint.h>

typedef struct NDIlib_source_t {
	const char* p_ndi_name;
	const char* p_url_address;
} NDIlib_source_t;

typedef struct NDIlib_find_create_t {
	bool show_local_sources;
	const char* p_groups;
	const char* p_extra_ips;
} NDIlib_find_create_t;

typedef void* NDIlib_find_instance_t;
typedef void* NDIlib_recv_instance_t;

typedef struct NDIlib_recv_create_v3_t {
	NDIlib_source_t source_to_connect_to;
	int color_format;
	int bandwidth;
	bool allow_video_fields;
	const char* p_ndi_recv_name;
} NDIlib_recv_create_v3_t;

typedef enum NDIlib_frame_type_e {
	NDIlib_frame_type_none = 0,
	NDIlib_frame_type_video = 1,
	NDIlib_frame_type_audio = 2,
	NDIlib_frame_type_metadata = 3,
	NDIlib_frame_type_error = 4,
	NDIlib_frame_type_status_change = 100
} NDIlib_frame_type_e;

typedef struct NDIlib_audio_frame_v2_t {
	int sample_rate;
	int no_channels;
	int no_samples;
	int64_t timecode;
	float* p_data;
	int channel_stride_in_bytes;
	const char* p_metadata;
	int64_t timestamp;
} NDIlib_audio_frame_v2_t;

extern bool NDIlib_initialize(void);

extern NDIlib_find_instance_t NDIlib_find_create_v2(const NDIlib_find_create_t* p_create_settings);
extern void NDIlib_find_destroy(NDIlib_find_instance_t p_instance);
extern bool NDIlib_find_wait_for_sources(NDIlib_find_instance_t p_instance, uint32_t timeout_in_ms);
extern const NDIlib_source_t* NDIlib_find_get_current_sources(NDIlib_find_instance_t p_instance, uint32_t* p_no_sources);

extern NDIlib_recv_instance_t NDIlib_recv_create_v3(const NDIlib_recv_create_v3_t* p_create_settings);
extern void NDIlib_recv_destroy(NDIlib_recv_instance_t p_instance);
extern void NDIlib_recv_connect(NDIlib_recv_instance_t p_instance, const NDIlib_source_t* p_src);
extern NDIlib_frame_type_e NDIlib_recv_capture_v2(NDIlib_recv_instance_t p_instance, void* p_video_data, NDIlib_audio_frame_v2_t* p_audio_data, void* p_metadata, uint32_t timeout_in_ms);
extern void NDIlib_recv_free_audio_v2(NDIlib_recv_instance_t p_instance, const NDIlib_audio_frame_v2_t* p_audio_data);

static inline void ndi_copy_audio(float* dst, const NDIlib_audio_frame_v2_t* frame, int total_floats) {
	memcpy(dst, frame->p_data, (size_t)total_floats * sizeof(float));
}
*/
import "C"

import (
	"sync"
	"time"
	"unsafe"
)

var initOnce sync.Once
var initErr error

func ensureInitialized() error {
	initOnce.Do(func() {
		if !C.NDIlib_initialize() {
			initErr = ErrUnavailable
		}
	})
	return initErr
}

// cgoReceiver owns the C strings backing its NDIlib_source_t for its
// entire lifetime — see doc.go. They are freed only in Close.
type cgoReceiver struct {
	instance  C.NDIlib_recv_instance_t
	nameBuf   *C.char
	mu        sync.Mutex
	closed    bool
}

func connect(sourceName string) (Receiver, error) {
	if err := ensureInitialized(); err != nil {
		return nil, err
	}

	nameBuf := C.CString(sourceName)

	src := C.NDIlib_source_t{p_ndi_name: nameBuf}

	create := C.NDIlib_recv_create_v3_t{
		source_to_connect_to: src,
		allow_video_fields:    C.bool(false),
		p_ndi_recv_name:       nameBuf,
	}

	instance := C.NDIlib_recv_create_v3(&create)
	if instance == nil {
		C.free(unsafe.Pointer(nameBuf))
		return nil, ErrUnavailable
	}

	C.NDIlib_recv_connect(instance, &src)

	return &cgoReceiver{instance: instance, nameBuf: nameBuf}, nil
}

func (r *cgoReceiver) CaptureAudio(timeout time.Duration) (AudioFrame, error) {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return AudioFrame{}, ErrClosed
	}

	var audio C.NDIlib_audio_frame_v2_t
	timeoutMs := C.uint32_t(timeout.Milliseconds())

	ft := C.NDIlib_recv_capture_v2(r.instance, nil, &audio, nil, timeoutMs)
	switch ft {
	case C.NDIlib_frame_type_audio:
		defer C.NDIlib_recv_free_audio_v2(r.instance, &audio)

		stride := int(audio.channel_stride_in_bytes) / 4
		channels := int(audio.no_channels)
		if stride <= 0 {
			stride = int(audio.no_samples)
		}
		total := stride * channels

		data := make([]float32, total)
		if total > 0 {
			C.ndi_copy_audio((*C.float)(unsafe.Pointer(&data[0])), &audio, C.int(total))
		}

		return AudioFrame{
			SampleRate: int(audio.sample_rate),
			Channels:   channels,
			Samples:    int(audio.no_samples),
			Stride:     stride,
			Layout:     Planar,
			Data:       data,
		}, nil
	case C.NDIlib_frame_type_error:
		return AudioFrame{}, ErrClosed
	default:
		return AudioFrame{}, ErrTimeout
	}
}

func (r *cgoReceiver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.instance != nil {
		C.NDIlib_recv_destroy(r.instance)
		r.instance = nil
	}
	C.free(unsafe.Pointer(r.nameBuf))
	r.nameBuf = nil
	return nil
}

type cgoFinder struct {
	instance C.NDIlib_find_instance_t
}

func newFinder() (Finder, error) {
	if err := ensureInitialized(); err != nil {
		return nil, err
	}
	settings := C.NDIlib_find_create_t{show_local_sources: C.bool(true)}
	instance := C.NDIlib_find_create_v2(&settings)
	if instance == nil {
		return nil, ErrUnavailable
	}
	return &cgoFinder{instance: instance}, nil
}

func (f *cgoFinder) ListSources(timeout time.Duration) ([]Source, error) {
	C.NDIlib_find_wait_for_sources(f.instance, C.uint32_t(timeout.Milliseconds()))

	var n C.uint32_t
	sources := C.NDIlib_find_get_current_sources(f.instance, &n)
	if sources == nil || n == 0 {
		return nil, nil
	}

	out := make([]Source, 0, int(n))
	base := unsafe.Pointer(sources)
	for i := 0; i < int(n); i++ {
		s := (*C.NDIlib_source_t)(unsafe.Add(base, i*int(unsafe.Sizeof(C.NDIlib_source_t{}))))
		if s.p_ndi_name != nil {
			out = append(out, Source{Name: C.GoString(s.p_ndi_name)})
		}
	}
	return out, nil
}

func (f *cgoFinder) Close() error {
	if f.instance != nil {
		C.NDIlib_find_destroy(f.instance)
		f.instance = nil
	}
	return nil
}
