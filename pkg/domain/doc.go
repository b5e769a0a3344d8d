/*
Package domain contains the core domain models for the funnel engine.

It defines the fundamental entities of the questionnaire flow, such as
Questions, the Answer Ledger, the Navigation State, and the interstitial
Binding Table. This package is kept pure and free of external dependencies
like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - Question: A single screen in the questionnaire with selectable options.
  - Ledger: The insertion-ordered, replace-in-place record of answers.
  - State: The runtime snapshot of a session (stage, current question, history).
  - BindingTable: The static (from, to) -> interstitial kind lookup and its inverse.
  - Catalog: The ordered question list with next-question resolution.
*/
package domain
