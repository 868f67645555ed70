package types

// Model is one *.gguf file the engine can load.
type Model struct {
	// Filename including extension; stable across restarts.
	// example: tinyllama-1.1b-chat.Q4_K_M.gguf
	ID string `json:"id" example:"tinyllama-1.1b-chat.Q4_K_M.gguf"`
	// Display name, currently the filename.
	Name string `json:"name" example:"tinyllama-1.1b-chat.Q4_K_M.gguf"`
	// Absolute path on disk.
	// example: /srv/models/tinyllama-1.1b-chat.Q4_K_M.gguf
	Path string `json:"path" example:"/srv/models/tinyllama-1.1b-chat.Q4_K_M.gguf"`
	// Quantization guessed from the filename, empty when unknown.
	// example: Q4_K_M
	Quant string `json:"quant,omitempty" example:"Q4_K_M"`
	// Model family guessed from the filename (first name segment).
	// example: tinyllama
	Family string `json:"family,omitempty" example:"tinyllama"`
	// File size in MB; the manager uses it as the VRAM estimate.
	// example: 638
	SizeMB int `json:"size_mb,omitempty" example:"638"`
}
