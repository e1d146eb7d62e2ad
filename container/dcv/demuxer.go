package dcv

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/toolset/dcplayer/av"
	"github.com/toolset/dcplayer/utils/pio"
	"github.com/toolset/dcplayer/utils/pool"

	log "github.com/sirupsen/logrus"
)

// Demuxer 는 dcv 스트림을 읽는다. 헤더 영역이 잘린 경우는 에러지만, 프레임 영역에서
// 잘리거나 깨진 데이터를 만나면 그 앞까지 읽은 프레임만 유효한 것으로 보고 io.EOF 를 돌려준다.
type Demuxer struct {
	r       *bufio.Reader
	pool    *pool.Pool
	buf     []byte
	devices []DeviceHeader
	device  int
	read    uint32
	last    *av.CompressedFrame
	done    bool
}

func NewDemuxer(r io.Reader) *Demuxer {
	return &Demuxer{
		r:    bufio.NewReaderSize(r, 64*1024),
		pool: pool.NewPool(),
		buf:  make([]byte, deviceHeaderLen),
	}
}

// ReadHeader reads the file header and every device header.
func (demuxer *Demuxer) ReadHeader() ([]DeviceHeader, error) {
	h := demuxer.buf[:fileHeaderLen]
	if err := demuxer.readHeaderBytes(h); err != nil {
		return nil, err
	}
	nbDevices, err := parseFileHeader(h)
	if err != nil {
		return nil, err
	}

	var devices []DeviceHeader
	for i := uint32(0); i < nbDevices; i++ {
		b := demuxer.buf[:deviceHeaderLen]
		if err := demuxer.readHeaderBytes(b); err != nil {
			return nil, fmt.Errorf("device %d header: %w", i, err)
		}
		devices = append(devices, parseDeviceHeader(b))
	}

	demuxer.devices = devices
	demuxer.device = 0
	demuxer.read = 0
	demuxer.skipFinishedDevices()
	return devices, nil
}

func (demuxer *Demuxer) readHeaderBytes(b []byte) error {
	if _, err := io.ReadFull(demuxer.r, b); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrTruncated
		}
		return err
	}
	return nil
}

// ReadFrame returns the next frame and the device it belongs to. io.EOF marks
// the end of the usable stream.
func (demuxer *Demuxer) ReadFrame() (int, *av.CompressedFrame, error) {
	if demuxer.done || demuxer.device >= len(demuxer.devices) {
		return -1, nil, io.EOF
	}
	device := demuxer.device

	f, err := demuxer.readFrame()
	if err != nil {
		demuxer.done = true
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			log.Debugf("[dcv] device %d: stream ends after %d of %d frames", device, demuxer.read, demuxer.devices[device].NbFrames)
			return -1, nil, io.EOF
		}
		if errors.Is(err, ErrCorrupt) {
			log.Warningf("[dcv] device %d frame %d: %v, ignoring the rest of the stream", device, demuxer.read, err)
			return -1, nil, io.EOF
		}
		return -1, nil, err
	}

	demuxer.last = f
	demuxer.read++
	demuxer.skipFinishedDevices()
	return device, f, nil
}

func (demuxer *Demuxer) readFrame() (*av.CompressedFrame, error) {
	h := demuxer.buf[:frameHeaderLen]
	if _, err := io.ReadFull(demuxer.r, h); err != nil {
		return nil, err
	}
	f := &av.CompressedFrame{}
	parseFrameHeader(h, f)

	if last := demuxer.last; last != nil {
		if f.CaptureTimestamp < last.CaptureTimestamp || f.IDCapture <= last.IDCapture {
			return nil, fmt.Errorf("%w: frame %d out of order", ErrCorrupt, f.IDCapture)
		}
	}

	for kind := av.PayloadKind(0); kind < av.PayloadKindCount; kind++ {
		present, err := demuxer.r.ReadByte()
		if err != nil {
			return nil, err
		}
		switch present {
		case 0:
			continue
		case 1:
		default:
			return nil, fmt.Errorf("%w: presence byte %d for %v", ErrCorrupt, present, kind)
		}

		l := demuxer.buf[:4]
		if _, err := io.ReadFull(demuxer.r, l); err != nil {
			return nil, err
		}
		size := pio.U32LE(l)
		if size > MaxPayloadSize {
			return nil, fmt.Errorf("%w: %v payload of %d bytes", ErrCorrupt, kind, size)
		}
		payload := demuxer.pool.Get(int(size))
		if _, err := io.ReadFull(demuxer.r, payload); err != nil {
			return nil, err
		}
		f.Payloads[kind] = payload
	}
	return f, nil
}

func (demuxer *Demuxer) skipFinishedDevices() {
	for demuxer.device < len(demuxer.devices) && demuxer.read >= demuxer.devices[demuxer.device].NbFrames {
		demuxer.device++
		demuxer.read = 0
		demuxer.last = nil
	}
}
