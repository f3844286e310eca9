// Package catalog describes the commands the bridge worker understands and
// validates their arguments against JSON schemas before they are sent.
package catalog
