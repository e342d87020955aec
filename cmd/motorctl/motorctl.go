package main

import (
	"k8s.io/component-base/logs"
	_ "k8s.io/component-base/logs/json/register"
	"os"
	"rs485motor/cmd/motorctl/app"
)

func main() {
	cmd := app.NewMotorctlCmd()
	logs.InitLogs()
	defer logs.FlushLogs()
	if err := cmd.Execute(); err != nil {
		logs.FlushLogs()
		os.Exit(1)
	}
}
