package main

import (
	_ "time/tzdata"

	"activity-monitor/internal/cli"
)

func main() {
	cli.Execute()
}
