// Command nam-vst is a mono VST2 effect that runs one model:
//
//	go build -tags plugin -buildmode=c-shared -o nam.so ./cmd/nam-vst
//
// The model comes from NAM_PLUGIN_MODEL or plugin_model in the config file
// until the host restores a session, which stores the model path.
package main

func main() {}
