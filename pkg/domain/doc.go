/*
Package domain contains the core domain models of the scenario editor.

It defines the entities of a branching narrative: Steps (nodes) joined by
labeled Choices (edges) that leave and enter through numbered slots. The
package is kept pure and free of external dependencies like I/O or
persistence, following Hexagonal Architecture principles.

# Key Entities

  - Step: one narrative beat, with an optional map Location and transient validation Errors.
  - Choice: a directed, labeled edge between two Steps, bound to an output and an input Slot.
  - Metadata: the scenario-level fields (id, title, description, author).
  - Scenario: an immutable snapshot of Metadata plus the full Step/Choice sets.
*/
package domain
