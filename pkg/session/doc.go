/*
Package session persists tour navigation state.

A tour is one visitor's walk through the exhibit. The Manager serialises access per tour id,
optionally across replicas through a distributed locker, and checkpoints or resumes a
navigator through a snapshot store.
*/
package session
