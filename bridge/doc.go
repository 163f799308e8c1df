/*
Package bridge multiplexes concurrent requests onto a single long-lived worker
process over line-delimited stdio.

Each request is serialized as one newline-terminated line on the worker's
stdin; the worker answers with exactly one newline-terminated line on stdout,
in request order. The bridge reassembles stdout chunks into frames, decodes
each frame through the codec fallback chain, and resolves the oldest pending
request with the result. Stderr is treated as unstructured diagnostics and is
only logged.

The bridge owns the worker's lifecycle: it spawns the worker on construction,
restarts it with a linear backoff when it exits unexpectedly (failing any
requests that were in flight), and gives up permanently once the restart
budget is exhausted. Correlation is strictly FIFO with no wire-level request
id, so the bridge relies on the worker answering one line per line, in order.

A bridge can optionally issue a configured warm-up request right after the
first start so that worker initialization cost is paid off the critical path.
*/
package bridge
