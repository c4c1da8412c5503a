// Package scope provides the Scope type: a node in the structured
// concurrency tree that owns every Frame admitted into it, halts them in
// reverse insertion order on teardown, and applies the first-error-wins
// child failure policy described on Scope.childTerminated.
package scope


