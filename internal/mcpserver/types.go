package mcpserver

// AskInput is the ask_fuel_docs tool input.
type AskInput struct {
	Question string `json:"question" jsonschema:"the customer question to answer"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"number of chunks to retrieve (default 10)"`
}

// AskOutput is the ask_fuel_docs tool output.
type AskOutput struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
	Model   string   `json:"model"`
}

// StatusInput is the get_index_status tool input.
type StatusInput struct{}

// StatusOutput reports the index contents.
type StatusOutput struct {
	Documents   int    `json:"documents"`
	Chunks      uint64 `json:"chunks"`
	TrackedURLs int    `json:"tracked_urls"`
	Ephemeral   bool   `json:"ephemeral"`
}
