// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - DocumentLoader: Reads course material from its location
//   - Chunker: Splits documents into retrievable sections
//   - EmbeddingService: Generates vector embeddings
//   - VectorIndex: Stores vectors and finds nearest neighbours
//   - ReasoningService: Remote language model with tool calling
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - HistoryStore: Query history persistence. Without it, nothing is recorded.
//   - PromptStore: Customisable prompts. Without it, built-in prompts are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or tool package
package driven
