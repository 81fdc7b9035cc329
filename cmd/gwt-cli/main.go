package main

import (
	"gwtdownloads/cmd/gwt-cli/commands"
	"gwtdownloads/internal/components/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
