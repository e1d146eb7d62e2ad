package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/kr/pretty"
	log "github.com/sirupsen/logrus"

	"github.com/toolset/dcplayer/av"
	"github.com/toolset/dcplayer/codec/raw"
	"github.com/toolset/dcplayer/configure"
	"github.com/toolset/dcplayer/geo"
	"github.com/toolset/dcplayer/player"
	"github.com/toolset/dcplayer/video"
)

var errNoOutput = errors.New("output_path is required")

// deviceInfo is what the info action prints per device.
type deviceInfo struct {
	Device     int
	Frames     int
	EpochMs    float64
	DurationMs float64
	Transform  geo.Mat4
}

func run(cfg configure.Cfg) error {
	if cfg.VideoPath == "" {
		return errors.New("video_path is required")
	}

	catalog, err := configure.NewCatalogFromConfig()
	if err != nil {
		return err
	}
	defer catalog.Close()

	codec := raw.New()
	p := player.New(codec, codec, configure.PlayerSettings())
	if err := p.LoadFromFile(cfg.VideoPath); err != nil {
		return err
	}
	register(catalog, cfg.VideoPath, p.Video())

	switch cfg.Action {
	case "info":
		return runInfo(p.Video())
	case "play":
		return runPlay(p, cfg)
	case "trim":
		return save(catalog, p, cfg, func() error {
			runTrim(p, cfg)
			return nil
		})
	case "merge":
		params, err := configure.MergeSettings()
		if err != nil {
			return err
		}
		return save(catalog, p, cfg, func() error {
			return p.MergeCameras(params)
		})
	case "clean":
		return save(catalog, p, cfg, func() error {
			p.RemoveEmptyDevices()
			return nil
		})
	}
	return fmt.Errorf("unknown action %q", cfg.Action)
}

func register(catalog *configure.Catalog, path string, v *video.Video) {
	key, err := catalog.Register(configure.EntryOf(path, v))
	if err != nil {
		log.Warningf("[catalog] register %s: %v", path, err)
		return
	}
	log.Infof("[catalog] %s registered as %s", path, key)
}

func save(catalog *configure.Catalog, p *player.Player, cfg configure.Cfg, edit func() error) error {
	if cfg.OutputPath == "" {
		return errNoOutput
	}
	if err := edit(); err != nil {
		return err
	}
	if err := p.SaveToFile(cfg.OutputPath); err != nil {
		return err
	}
	register(catalog, cfg.OutputPath, p.Video())
	return nil
}

func runInfo(v *video.Video) error {
	infos := make([]deviceInfo, v.NbDevices())
	for d := range infos {
		infos[d] = deviceInfo{
			Device:     d,
			Frames:     v.NbFrames(d),
			EpochMs:    v.EpochMs(d),
			DurationMs: v.DeviceDurationMs(d),
			Transform:  v.Transform(d),
		}
	}
	log.Infof("%v", v)
	fmt.Printf("%# v\n", pretty.Formatter(infos))
	return nil
}

// 트림은 trim_start_ms 로 이동해 앞부분을 자르고, 잘린 비디오 기준 trim_end_ms 로 이동해 뒷부분을 자른다.
func runTrim(p *player.Player, cfg configure.Cfg) {
	if cfg.TrimStartMs > 0 {
		p.SetCurrentTime(cfg.TrimStartMs)
		p.Update()
		p.RemoveUntilCurrentFrame()
	}
	if cfg.TrimEndMs > 0 {
		p.SetCurrentTime(cfg.TrimEndMs)
		p.Update()
		p.RemoveAfterCurrentFrame()
	}
}

func runPlay(p *player.Player, cfg configure.Cfg) error {
	var frames, points int
	id := p.Subscribe(player.ListenerFuncs{
		NewFrame: func(device int, frame *av.DecodedFrame) {
			frames++
			points += frame.CloudSize()
			log.WithFields(log.Fields{
				"device":     device,
				"id_capture": frame.IDCapture,
				"points":     frame.CloudSize(),
			}).Debug("new frame")
		},
		StateUpdated: func(state player.State) {
			log.Tracef("state %v", state)
		},
	})
	defer p.Unsubscribe(id)

	tick := time.Duration(cfg.TickMs) * time.Millisecond
	if tick <= 0 {
		tick = 33 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	deadline := time.After(time.Duration(cfg.PlayDurationMs) * time.Millisecond)

	p.Start()
	p.Update()
	for {
		select {
		case <-ticker.C:
			p.Update()
		case <-deadline:
			p.Stop()
			log.WithFields(log.Fields{
				"frames": frames,
				"points": points,
				"state":  p.State().String(),
			}).Info("playback done")
			return nil
		}
	}
}
