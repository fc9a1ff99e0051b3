package main

import "rental-reconciliation-backend/internal/cli"

func main() {
	cli.Execute()
}
