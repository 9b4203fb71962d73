package main

import (
	"fmt"
	"os"
)

// Version is set at build time via ldflags
var Version = "dev"

const (
	pidFile   = "rosterd.pid"
	tokenFile = "token"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	args := os.Args[2:]

	var err error
	switch os.Args[1] {
	case "init":
		err = cmdInit()
	case "start":
		err = cmdStart()
	case "stop":
		err = cmdStop()
	case "status":
		err = cmdStatus()
	case "login":
		err = cmdLogin(args)
	case "logout":
		err = cmdLogout()
	case "list", "ls":
		err = cmdList()
	case "add":
		err = cmdAdd(args)
	case "edit":
		err = cmdEdit(args)
	case "rm", "remove":
		err = cmdRemove(args)
	case "hash-password":
		err = cmdHashPassword()
	case "mcp":
		err = cmdMCP()
	case "watch":
		err = cmdWatch()
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Printf("roster %s\n", Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describeError(err))
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Roster - Student roster manager

Usage:
  roster <command> [arguments]

Setup Commands:
  init            Create ~/.roster, the config file and an admin user
  hash-password   Print a bcrypt hash for a password read from stdin

Daemon Commands:
  start           Start the roster daemon
  stop            Stop the roster daemon
  status          Show daemon status

Session Commands:
  login [user]    Log in to the daemon
  logout          End the current session

Student Commands:
  list            List students
  add             Add a student (flags: -nome -matricula -email -nascimento)
  edit <id>       Edit a student (same flags; omitted fields keep their value)
  rm <id> [-y]    Remove a student (asks for confirmation unless -y)

Integration Commands:
  mcp             Start MCP server on stdio
  watch           Print roster events from the message queue

Other:
  help            Show this help message
  version         Show version information

Examples:
  roster init
  roster start
  roster login admin
  roster add -nome "Ana Silva" -matricula 2024001 -email ana@escola.br -nascimento 2005-03-14
  roster list`)
}
