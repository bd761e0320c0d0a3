package api

import "github.com/samcharles93/namcore/pkg/nam"

type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

type CreateHandleRequest struct {
	// Model is a model name in the models directory or a path to a .nam file.
	Model string `json:"model"`
	// MaxBlockSize prepares the handle for blocks of this many frames.
	MaxBlockSize int `json:"max_block_size,omitempty"`
}

type HandleInfo struct {
	ID             string       `json:"id"`
	Object         string       `json:"object"`
	Model          string       `json:"model"`
	Path           string       `json:"path"`
	Architecture   string       `json:"architecture"`
	Version        string       `json:"version"`
	SampleRate     float64      `json:"sample_rate"`
	ReceptiveField int          `json:"receptive_field"`
	PrewarmSamples int          `json:"prewarm_samples"`
	MaxBlockSize   int          `json:"max_block_size"`
	CreatedAt      int64        `json:"created_at"`
	Metadata       nam.Metadata `json:"metadata"`
}

type ModelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	ModTime int64  `json:"modified_at"`
}

type ListResponse[T any] struct {
	Object string `json:"object"`
	Data   []T    `json:"data"`
}

type DeleteResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}
