// Package platform runs external processes and performs the host-specific
// filesystem steps of an installation.
//
// A Platform is selected once at startup from the operating system name.
// Unix hosts launch processes directly and manipulate trees natively;
// Windows hosts route commands through the command interpreter and use
// its rmdir and xcopy builtins. Every process call names its working
// directory explicitly so that no step depends on the current directory
// of the installer itself.
package platform
