// Package app runs combat operations for the chat, websocket, and MCP
// surfaces.
//
// Each operation rolls any initiative it needs through the character
// directory first, then applies a pure transition from domain/combat through
// SessionStore.UpdateSession. No directory call happens while the store holds
// a session lock.
package app
