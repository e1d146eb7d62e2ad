package video

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/toolset/dcplayer/container/dcv"

	log "github.com/sirupsen/logrus"
)

// Load reads a video from path.
func Load(path string) (*Video, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	defer file.Close()

	v, err := Read(file)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	log.WithFields(log.Fields{
		"path":     path,
		"devices":  v.NbDevices(),
		"frames":   v.CountFramesFromAllDevices(),
		"duration": v.DurationMs(),
	}).Info("video loaded")
	return v, nil
}

// Read decodes a dcv stream. Frames after a truncated or garbage frame are
// dropped, a broken header is an error.
func Read(r io.Reader) (*Video, error) {
	demuxer := dcv.NewDemuxer(r)
	headers, err := demuxer.ReadHeader()
	if err != nil {
		return nil, err
	}

	v := New(len(headers))
	for d, h := range headers {
		v.devices[d].Transform = h.Transform
	}

	for {
		d, f, err := demuxer.ReadFrame()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		// the demuxer already rejects out of order frames
		if err := v.devices[d].Append(f); err != nil {
			return nil, err
		}
	}

	for d, h := range headers {
		if got := v.devices[d].Len(); got != int(h.NbFrames) {
			log.Warningf("[video] device %d: %d of %d frames could be read", d, got, h.NbFrames)
		}
	}
	return v, nil
}

// LoadFromFile replaces the content of v with the file at path. v is left
// untouched on error.
func (v *Video) LoadFromFile(path string) error {
	loaded, err := Load(path)
	if err != nil {
		return err
	}
	v.devices = loaded.devices
	return nil
}

// Write encodes v as a dcv stream.
func (v *Video) Write(w io.Writer) error {
	headers := make([]dcv.DeviceHeader, len(v.devices))
	for d, seq := range v.devices {
		headers[d] = dcv.DeviceHeader{Transform: seq.Transform, NbFrames: uint32(seq.Len())}
	}

	muxer := dcv.NewMuxer(w)
	if err := muxer.WriteHeader(headers); err != nil {
		return err
	}
	for _, seq := range v.devices {
		for _, f := range seq.frames {
			if _, err := muxer.WriteFrame(f); err != nil {
				return err
			}
		}
	}
	return nil
}

// SaveToFile writes v next to path then renames it over path, so an existing
// file is only replaced by a complete one.
func (v *Video) SaveToFile(path string) error {
	if path == "" {
		return errors.New("save: empty path")
	}
	if v.CountFramesFromAllDevices() == 0 {
		return fmt.Errorf("save %s: %w", path, ErrNoFrames)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	writer := bufio.NewWriterSize(tmp, 256*1024)
	if err := v.Write(writer); err != nil {
		return fail(fmt.Errorf("save %s: %w", path, err))
	}
	if err := writer.Flush(); err != nil {
		return fail(fmt.Errorf("save %s: %w", path, err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("save %s: %w", path, err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename file: %w", err)
	}

	log.WithFields(log.Fields{
		"path":    path,
		"devices": v.NbDevices(),
		"frames":  v.CountFramesFromAllDevices(),
	}).Info("video saved")
	return nil
}
