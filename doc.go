/*
Package exhibit is the navigation core of an interactive exhibit tour: regions containing nodes that a
visitor triggers by walking through trigger volumes, driving guided audio and a shared NPC.

# Concept

A scene file lists the regions and their nodes. Each region and each node gets a pair of named trigger
volumes ("Hall.enter", "Hall/A.exit", ...). The host reports the visitor crossing them with Fire; the
engine activates and exits regions, switches the current node, keeps the history of previously current
nodes, and cancels every audio or animation wait owned by a node when it closes.

The host engine (rendering, physics, audio output) stays outside. It is reached through the interfaces
of pkg/ports; the memory adapters implement them headless, the audio adapter plays real clips.

# Key Features

  - Serialised switches: a switch commits only after the vacated node closed or was cancelled.
  - Cancellation is never an error: operations report applied, skipped or cancelled outcomes.
  - Keyed broadcast: navigation messages are published on a type-checked dispatcher.
  - Durable tours: navigator snapshots persist to memory or Redis through pkg/session.

# Usage

	ex, err := exhibit.New("./museum.yaml")
	if err != nil {
		log.Fatal(err)
	}
	defer ex.Close(context.Background())

	ctx := context.Background()
	ex.Fire(ctx, "Hall.enter", trigger.PhaseEnter, ex.Player())
	ex.Fire(ctx, "Hall/A.enter", trigger.PhaseEnter, ex.Player())

	fmt.Println(ex.State().Current) // Hall/A
*/
package exhibit
