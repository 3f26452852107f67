// main.go
package main

import (
	"os"

	"gitlab.consulting.redhat.com/ksa/health-check-proxmox/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
