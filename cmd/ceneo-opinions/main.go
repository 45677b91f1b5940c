package main

import (
	"context"

	"ceneo-opinions/cmd/ceneo-opinions/commands"
)

func main() {
	commands.ExecuteContext(context.Background())
}
