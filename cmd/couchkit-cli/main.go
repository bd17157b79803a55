// Command couchkit-cli is a small operational tool for poking at a
// cluster: key-value operations, view queries, and design document
// management from the shell.
package main

func main() {
	Execute()
}
