// Command fetch performs one-off lookups against the upstream APIs using the
// same configuration as the server.
package main

func main() {
	NewRootCommand().Execute()
}
