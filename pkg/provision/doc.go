// Package provision sequences the installation of the SCAII core and the
// Sky-RTS backend.
//
// Each user command maps to a fixed pipeline of steps:
//
//	install      clean core, clean backend, fetch core, fetch backend, build core, build backend
//	reinstall    shallow clean, build core, build backend (only if an installation exists)
//	uninstall    clean core, clean backend
//
// plus single-step commands for each fetch, build and clean. The first
// failing step stops the pipeline. Clean steps are retried a fixed number
// of times since removal can fail transiently while files are held open.
//
// Success of git and cargo is decided by exit status first; their text
// output is then inspected for the error markers those tools print.
package provision
