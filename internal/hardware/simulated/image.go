package simulated

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"time"

	"github.com/eleven-am/burst-camera/internal/camera"
)

// Rendered frames are scaled down to keep the simulation cheap; Size still
// reports the configured output size.
const maxRenderWidth = 320

var rawMagic = []byte{'I', 'I', '*', 0}

type frame struct {
	data      []byte
	format    camera.PixelFormat
	size      camera.Size
	timestamp time.Time
	manager   *Manager
	once      sync.Once
}

func (m *Manager) newFrame(target camera.StillTarget, req camera.FrameRequest, index int) *frame {
	var data []byte
	if target.Format == camera.FormatRAW {
		data = rawPayload(req, index)
	} else {
		encoded, err := renderJPEG(target.Size, req, index)
		if err != nil {
			m.log.Warn("still render failed", "index", index, "error", err)
		}
		data = encoded
	}

	m.update(func(s *Stats) { s.ImagesOpen++ })
	return &frame{
		data:      data,
		format:    target.Format,
		size:      target.Size,
		timestamp: time.Now(),
		manager:   m,
	}
}

func (f *frame) Bytes() []byte { return f.data }
func (f *frame) Format() camera.PixelFormat { return f.format }
func (f *frame) Size() camera.Size { return f.size }
func (f *frame) Timestamp() time.Time { return f.timestamp }

func (f *frame) Close() error {
	f.once.Do(func() {
		f.manager.update(func(s *Stats) { s.ImagesOpen-- })
	})
	return nil
}

// rawPayload is a little-endian TIFF-style header followed by the request
// parameters, enough to tell frames of a burst apart on disk.
func rawPayload(req camera.FrameRequest, index int) []byte {
	var buf bytes.Buffer
	buf.Write(rawMagic)
	binary.Write(&buf, binary.LittleEndian, uint32(index))
	binary.Write(&buf, binary.LittleEndian, int64(req.ExposureTime))
	binary.Write(&buf, binary.LittleEndian, int32(req.Sensitivity))
	binary.Write(&buf, binary.LittleEndian, int32(req.AECompensation))
	for buf.Len() < 256 {
		buf.WriteByte(byte(buf.Len() ^ index))
	}
	return buf.Bytes()
}

func renderJPEG(size camera.Size, req camera.FrameRequest, tick int) ([]byte, error) {
	w, h := size.Width, size.Height
	if w <= 0 || h <= 0 {
		w, h = 320, 240
	}
	if w > maxRenderWidth {
		h = h * maxRenderWidth / w
		w = maxRenderWidth
	}
	if h < 1 {
		h = 1
	}

	level := 96 + req.AECompensation*8
	if req.Manual() {
		level = 64 + int(req.ExposureTime.Milliseconds())*req.Sensitivity/1000
	}
	if req.Flash == camera.FlashTorch {
		level += 48
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	bar := tick % w
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := clampByte(level + (x*64)/w - 32)
			if x == bar {
				v = 255
			}
			img.Set(x, y, color.RGBA{R: v, G: v, B: clampByte(int(v) + 16), A: 255})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 75}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func clampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
