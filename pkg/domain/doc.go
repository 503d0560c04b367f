/*
Package domain contains the core types shared by every layer of the exhibit engine.

It is kept pure and free of I/O so that the scene state machine, the adapters and the
host integrations can all agree on the same vocabulary without importing each other.

# Key Entities

  - TriggerKind: How a Node is triggered (Zone, Audio, Timed...).
  - Outcome: The structured result of a state-machine operation (applied, skipped, cancelled).
  - Snapshot: A persistable view of the navigation state (current node and history).
  - LifecycleHooks: Observability callbacks fired on node switches, closes and region changes.
*/
package domain
