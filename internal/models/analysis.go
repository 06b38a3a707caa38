package models

// AnalysisResult is the text produced by the agent for one analysis run.
type AnalysisResult struct {
	Text      string `json:"text"`
	Model     string `json:"model"`
	ToolCalls int    `json:"toolCalls"`
}
