/*
Package sceneweaver is the editing core of a branching-scenario authoring tool.

A scenario is a directed graph of steps (narrative beats) joined by labeled
choices. The Editor owns one scenario for the duration of an editing session:
every mutation goes through it, structural rules are enforced before anything
changes, and saves round-trip the scenario through the flat wire document the
scenario store understands.

# Concept

Each step has four output ports and four input ports (slots). A port carries
at most one choice, and a step has at most four outgoing choices. Proposed
connections that break these rules are rejected with a reason and leave the
graph untouched. Positions are cosmetic; the layout engine recomputes them on
demand in a layered, top-to-bottom arrangement.

When the store refuses a document, its validation payload is projected back
onto the steps it names, so the canvas can mark them, and the session stays
open for another attempt.

# Usage

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/sceneweaver"
		"github.com/aretw0/sceneweaver/pkg/adapters/remote"
		"github.com/aretw0/sceneweaver/pkg/domain"
	)

	func main() {
		ctx := context.Background()
		id := remote.StaticIdentity{User: "42", BearerToken: "token"}
		store, err := remote.New("https://stories.example.com/api", remote.WithIdentity(id))
		if err != nil {
			log.Fatal(err)
		}

		ed := sceneweaver.New(sceneweaver.WithStore(store), sceneweaver.WithIdentity(id))
		ed.SetTitle("The Old Town Walk")

		start := ed.Snapshot().Steps[0]
		child, _, err := ed.AddLinkedStep(start.ID)
		if err != nil {
			log.Fatal(err)
		}
		ed.EditStep(child.ID, domain.StepPatch{Title: domain.Ptr("The Market")})
		ed.AutoLayout()

		outcome, err := ed.Save(ctx)
		if err != nil {
			log.Fatal(err)
		}
		log.Println("save:", outcome)
	}
*/
package sceneweaver
