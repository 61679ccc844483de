// The main package for the planscraper executable.
package main

import (
	"github.com/JakeFAU/lto-plan-scraper/cmd"
)

func main() {
	cmd.Execute()
}
