package c2patool

import (
	"sigil/internal/config"
)

// Command is an argument-vector invocation of a provenance CLI binary.
// Paths travel as single argv entries, so no shell quoting is involved.
type Command struct {
	Binary string
	Args   []string
}

// WithAuthToken returns a copy of the command with a bearer token flag
// appended. Only the internal tool understands the flag.
func (c Command) WithAuthToken(token string) Command {
	args := append(append([]string(nil), c.Args...), "--auth-token", token)
	return Command{Binary: c.Binary, Args: args}
}

// InspectCommand builds the public-tool invocation that prints an asset's
// manifest store as JSON on stdout.
func InspectCommand(tools config.Tools, assetPath string) Command {
	return Command{
		Binary: tools.PublicBinary,
		Args:   []string{assetPath, "--detailed"},
	}
}

// SignCommand builds the public-tool invocation that embeds and signs a
// manifest into assetPath, writing the signed asset to outputPath.
func SignCommand(tools config.Tools, signing config.Signing, assetPath, manifestPath, outputPath string) Command {
	args := []string{
		assetPath,
		"-m", manifestPath,
		"-o", outputPath,
		"-f",
		"--cert", signing.CertificatePath,
		"--key", signing.PrivateKeyPath,
		"--alg", signing.Algorithm,
	}
	if signing.TSAURL != "" {
		args = append(args, "--tsa-url", signing.TSAURL)
	}
	return Command{Binary: tools.PublicBinary, Args: args}
}

// AddManifestCommand builds the add-manifest invocation. Four variants exist:
// public or internal tooling, with or without a parent-asset reference for
// ingredient chaining.
func AddManifestCommand(tools config.Tools, assetPath, manifestPath, parentPath string, internalTooling bool) Command {
	if internalTooling {
		args := []string{"add-manifest", "--asset", assetPath, "--manifest", manifestPath}
		if parentPath != "" {
			args = append(args, "--parent", parentPath)
		}
		return Command{Binary: tools.InternalBinary, Args: args}
	}

	args := []string{assetPath, "-m", manifestPath, "-o", assetPath, "-f"}
	if parentPath != "" {
		args = append(args, "-p", parentPath)
	}
	return Command{Binary: tools.PublicBinary, Args: args}
}
