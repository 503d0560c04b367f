/*
Package ports defines the driven ports (interfaces) of the exhibit engine.

The scene state machine never talks to an engine, a sound card or a database directly.
Everything it needs from the host is expressed here so adapters can be swapped freely.

# Key Interfaces

  - AudioPlayer / Mixer: Clip playback on a node source and on the shared BGM/SFX/Guide channels.
  - Animator: Animation triggers and clip durations for timed waits.
  - Visual: Show/Hide for nodes and highlight effects.
  - Actor: Shared scene actors (the NPC) that can be relocated.
  - SnapshotStore: Persists navigation snapshots for resumable tours.
  - DistributedLocker: Coordinates tour access across replicas.
*/
package ports
