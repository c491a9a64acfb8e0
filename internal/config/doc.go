// Package config loads the chaintipd JSON configuration file and fills
// in defaults for anything the operator left unset. All backend choices
// (account store driver, balance cache, audit publisher) are made here
// and wired at startup.
package config
