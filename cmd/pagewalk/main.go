// Command pagewalk walks paginated HTTP APIs and prints every item as a JSON line.
package main

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	Execute()
}
