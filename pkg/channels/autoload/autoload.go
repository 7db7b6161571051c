// Package autoload registers all built-in channels via their init()
// functions. Blank-import it from main.
package autoload

import (
	_ "concierge/pkg/channels/telegram"
	_ "concierge/pkg/channels/web"
)
