// Package ui holds the console colour theme shared by presentation code. It
// keeps lipgloss out of the packages that only need to know whether output is
// coloured.
package ui
