package main

import (
	"fmt"
	"os"
	"path"
	"runtime"
	"time"

	"github.com/toolset/dcplayer/configure"

	log "github.com/sirupsen/logrus"
)

var VERSION = "master"

// 택스트 포매터를 설정한다. 호출 함수 이름과 파일 이름, 라인 번호를 출력한다.
func init() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
		CallerPrettyfier: func(f *runtime.Frame) (string, string) {
			filename := path.Base(f.File)
			return fmt.Sprintf("%s()", f.Function), fmt.Sprintf(" %s:%d", filename, f.Line)
		},
	})
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			log.Error("dcplayer panic: ", r)
			time.Sleep(1 * time.Second)
			os.Exit(2)
		}
	}()

	log.Infof("dcplayer version: %s", VERSION)

	if err := configure.Init(os.Args[1:]); err != nil {
		log.Fatal(err)
	}

	cfg := configure.Current()
	if err := run(cfg); err != nil {
		log.Fatalf("%s %s: %v", cfg.Action, cfg.VideoPath, err)
	}
}
