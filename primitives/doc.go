// Package primitives implements the derived operations every Frame body
// is written against: suspend, spawn, sleep, race, ensure,
// resource-with-provide, abort signals, and the channel/stream/subscription
// family (plus each, its back-pressured consumer). None of these hold any
// state of their own beyond what a Frame or a value created here already
// tracks; they are thin, composable wrappers over frame.Frame.
package primitives
