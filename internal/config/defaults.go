package config

const (
	defaultScratchDir        = "~/.local/share/sigil/scratch"
	defaultLogDir            = "~/.local/share/sigil/logs"
	defaultIdentityStageURL  = "https://auth.stage.contentsign.io/oauth/token"
	defaultIdentityProdURL   = "https://auth.contentsign.io/oauth/token"
	defaultIdentityClientID  = "sigil_worker_v1"
	defaultIdentityTimeout   = 30
	defaultCertificatePath   = "~/.config/sigil/credentials/certificate.pem"
	defaultPrivateKeyPath    = "~/.config/sigil/credentials/private_key.pem"
	defaultSigningAlgorithm  = "es256"
	defaultTSAURL            = "http://timestamp.digicert.com"
	defaultSigningServiceURL = "https://signer.contentsign.io/c2pa"
	defaultSigningTimeout    = 60
	defaultPublicBinary      = "c2patool"
	defaultInternalBinary    = "c2pa-internal"
	defaultMimeType          = "image/jpeg"
	defaultGenerator         = "sigil/0.1.0"
	defaultPollInterval      = 5
	defaultLogFormat         = "text"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ScratchDir: defaultScratchDir,
			LogDir:     defaultLogDir,
		},
		Identity: Identity{
			StageURL:       defaultIdentityStageURL,
			ProdURL:        defaultIdentityProdURL,
			ClientID:       defaultIdentityClientID,
			RequestTimeout: defaultIdentityTimeout,
		},
		Signing: Signing{
			CertificatePath: defaultCertificatePath,
			PrivateKeyPath:  defaultPrivateKeyPath,
			Algorithm:       defaultSigningAlgorithm,
			TSAURL:          defaultTSAURL,
			ServiceURL:      defaultSigningServiceURL,
			RequestTimeout:  defaultSigningTimeout,
		},
		Tools: Tools{
			PublicBinary:   defaultPublicBinary,
			InternalBinary: defaultInternalBinary,
		},
		Worker: Worker{
			DefaultMimeType: defaultMimeType,
			Generator:       defaultGenerator,
		},
		Daemon: Daemon{
			PollInterval: defaultPollInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
