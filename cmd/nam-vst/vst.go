//go:build plugin

package main

import (
	"pipelined.dev/audio/vst2"

	"github.com/samcharles93/namcore/internal/config"
	"github.com/samcharles93/namcore/internal/version"
	"github.com/samcharles93/namcore/pkg/nam"
)

const (
	pluginID   = 'N'<<24 | 'A'<<16 | 'M'<<8 | 'c'
	pluginName = "namcore"
)

func init() {
	vst2.PluginAllocator = func(h vst2.Host) (vst2.Plugin, vst2.Dispatcher) {
		cfg, err := config.Load()
		log := pluginLogger(cfg)
		if err != nil {
			log.Warn("config ignored", "error", err)
		}
		nam.SetLogger(log.Slog())
		log.Info("plugin loaded", "version", version.String())

		fx := newEffect(cfg, log)
		return vst2.Plugin{
				UniqueID:       pluginID,
				Version:        100,
				InputChannels:  1,
				OutputChannels: 1,
				Name:           pluginName,
				Vendor:         "samcharles93/namcore",
				Category:       vst2.PluginCategoryEffect,
				Flags:          vst2.PluginProgramChunks,
				ProcessFloatFunc: func(in, out vst2.FloatBuffer) {
					fx.process(in.Channel(0), out.Channel(0)[:out.Frames])
				},
			}, vst2.Dispatcher{
				CloseFunc: fx.close,
				GetChunkFunc: func(isPreset bool) []byte {
					return fx.chunk()
				},
				SetChunkFunc: func(data []byte, isPreset bool) {
					fx.restore(data)
				},
			}
	}
}
