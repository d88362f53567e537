package sceneweaver

// Version is the release of the module and its CLI.
const Version = "0.3.0"
