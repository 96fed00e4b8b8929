// Package registry maps string-typed names to behavior: node handlers that
// solve workflow nodes, factories that build pipeline steps, and observers
// that attach to the event bus. Modules contribute their pieces through the
// Module interface, and hosts validate a loaded workflow against what was
// registered before running anything.
package registry
