// Command baton enforces Conductor/Musician delegation in Claude Code hooks.
package main

func main() {
	Execute()
}
