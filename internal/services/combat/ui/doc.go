// Package ui renders combat as declarative chat payloads and turns component
// events back into combat service calls.
//
// Payloads are transport neutral. The discord and websocket transports
// convert them to their own wire types and feed events to a Router.
// Nothing here keeps state between events: the setup selections live in the
// default options of the rendered select menus and are read back from the
// event's source message.
package ui
