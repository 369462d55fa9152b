package core

// EngineVersion tags the engine-algorithm build, including the RNG stream.
// Clients must present the same version on connect, and replay files carry it
// so playback against a different build warns instead of silently diverging.
const EngineVersion = "0.4.0+splitmix64"
