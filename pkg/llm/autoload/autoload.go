// Package autoload registers all built-in LLM providers via their init()
// functions. Blank-import it from main.
package autoload

import (
	_ "concierge/pkg/llm/gemini"
	_ "concierge/pkg/llm/ollama"
	_ "concierge/pkg/llm/openailm"
)
