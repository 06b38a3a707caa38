package analysis

import (
	"fmt"
	"strings"
)

const promptTemplate = `Analyze the uploaded video for content and context.
Respond to the following query using video insights and supplementary web research:
%s

Provide a detailed, user-friendly, and actionable response.`

// EmptyQueryWarning is shown when the user asks to analyze without a query.
const EmptyQueryWarning = "Please enter a question or request for the video."

// BuildPrompt wraps the user's query in the fixed analysis instructions.
func BuildPrompt(query string) string {
	return fmt.Sprintf(promptTemplate, strings.TrimSpace(query))
}
