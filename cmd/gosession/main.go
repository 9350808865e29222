// Command gosession drives a goSession Manager from the terminal, keeping
// sessions in a file between invocations.
package main

import "github.com/MrEthical07/goSession/cmd/gosession/cmd"

func main() {
	cmd.Execute()
}
