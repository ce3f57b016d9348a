package cmd

// DefaultProjectConfigFilename describes the default config filename for a given project folder.
const DefaultProjectConfigFilename = "shadow.json"

// DefaultCompilationPlatform describes the default compilation platform to use if one is not provided
const DefaultCompilationPlatform = "forge"

// DefaultGroupDirectory is the contract group directory used when --group is not provided.
const DefaultGroupDirectory = "group"

// TargetFlagDescription describes the --target flag shared by the commands which compile
const TargetFlagDescription = "target that should be compiled (the project root for forge, a source file for solc)"
