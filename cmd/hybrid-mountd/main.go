// Command hybrid-mountd is the privileged entry point: it wires up
// structured logging and hands off to the registered cli-ng commands.
package main

import (
	"github.com/hybridmount/hybrid-mount/cli"
	"github.com/hybridmount/hybrid-mount/internal/log"
)

func main() {
	log.SetLogger()

	cli.Root.Run()
}
