package main

import (
	"fmt"
	"os"

	accountscmd "github.com/Shafi-prog/money-tracker-sub001/cmd/accounts"
	"github.com/Shafi-prog/money-tracker-sub001/cmd/batch"
	"github.com/Shafi-prog/money-tracker-sub001/cmd/export"
	"github.com/Shafi-prog/money-tracker-sub001/cmd/process"
	"github.com/Shafi-prog/money-tracker-sub001/cmd/root"
	"github.com/Shafi-prog/money-tracker-sub001/cmd/serve"
)

func main() {
	root.Cmd.AddCommand(
		process.Cmd,
		serve.Cmd,
		batch.Cmd,
		accountscmd.Cmd,
		export.Cmd,
	)

	if err := root.Cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
