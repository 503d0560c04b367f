/*
Package dispatch implements a keyed broadcast dispatcher: a registry mapping an opaque
comparable key to a chain of callbacks sharing one signature.

The signature of a key (arity 0 to 3 and parameter types) is fixed by the first listener
registered under it. Typed helpers (AddListener1, Send2, ...) let the compiler check the
callback shape; the runtime check only guards against two call sites disagreeing about the
same key. SendDynamic exists for hosts that only know the payload at runtime (HTTP, MCP).

Dispatch is synchronous. The chain is read under the registry lock and invoked outside it,
so listeners may add or remove listeners while being called.

	d := dispatch.New()
	off, _ := dispatch.AddListener2(d, "score", func(player string, points int) {
		fmt.Println(player, points)
	})
	defer off()
	_ = dispatch.Send2(d, "score", "ana", 10)

Each AddListener returns a func that removes exactly that registration. RemoveListener
matches by code pointer instead, which cannot tell apart method values or closures built
from the same function; it is meant for plain top-level functions.
*/
package dispatch
