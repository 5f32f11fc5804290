package main

import (
	"tigerscraper/cmd/tigerscraper/commands"
	"tigerscraper/internal/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
