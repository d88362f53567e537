/*
Package session keeps editing sessions alive across requests.

A Manager maps session ids to live editors. Every mutation runs under a
per-session lock (optionally backed by a distributed locker so replicas
coordinate) and the resulting working copy is written to a DraftStore as a
draft: the wire document plus positions, slots and errors. A replica that
does not hold the editor in memory restores it from the draft. With a
distributed locker editors are never cached, so every operation starts from
the draft the last replica wrote.
*/
package session
