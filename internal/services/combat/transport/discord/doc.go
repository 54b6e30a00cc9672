// Package discord adapts the combat flows to Discord slash commands and
// message components.
package discord
