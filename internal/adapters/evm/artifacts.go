package evm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/capybara-io/capydeploy/internal/domain"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Artifact is the compiled output of one contract
type Artifact struct {
	ContractName    string
	Path            string
	ABI             abi.ABI
	Bytecode        []byte
	CompilerVersion string
}

// rawArtifact covers both Truffle (build/contracts/<Name>.json) and Foundry
// (out/<Name>.sol/<Name>.json) layouts
type rawArtifact struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     json.RawMessage `json:"bytecode"`
	Compiler     struct {
		Version string `json:"version"`
	} `json:"compiler"`
	// Foundry writes an object, Truffle a JSON-encoded string
	Metadata json.RawMessage `json:"metadata"`
}

type rawMetadata struct {
	Compiler struct {
		Version string `json:"version"`
	} `json:"compiler"`
}

// ArtifactStore loads contract artifacts from a list of build directories
type ArtifactStore struct {
	dirs  []string
	mu    sync.Mutex
	cache map[string]*Artifact
}

// NewArtifactStore searches dirs in order
func NewArtifactStore(dirs ...string) *ArtifactStore {
	return &ArtifactStore{
		dirs:  dirs,
		cache: make(map[string]*Artifact),
	}
}

// Load returns the artifact of contract
func (s *ArtifactStore) Load(contract string) (*Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if art, ok := s.cache[contract]; ok {
		return art, nil
	}

	path, err := s.find(contract)
	if err != nil {
		return nil, err
	}

	art, err := readArtifact(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", path, err)
	}
	if art.ContractName == "" {
		art.ContractName = contract
	}

	s.cache[contract] = art
	return art, nil
}

func (s *ArtifactStore) find(contract string) (string, error) {
	var tried []string
	for _, dir := range s.dirs {
		for _, candidate := range []string{
			filepath.Join(dir, contract+".json"),
			filepath.Join(dir, contract+".sol", contract+".json"),
		} {
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
			tried = append(tried, candidate)
		}
	}
	return "", fmt.Errorf("no artifact for contract '%s' (looked in %s): %w",
		contract, strings.Join(tried, ", "), domain.ErrNotFound)
}

func readArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw rawArtifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	if len(raw.ABI) == 0 {
		return nil, fmt.Errorf("artifact has no abi")
	}
	parsedABI, err := abi.JSON(bytes.NewReader(raw.ABI))
	if err != nil {
		return nil, fmt.Errorf("invalid abi: %w", err)
	}

	bytecode, err := parseBytecode(raw.Bytecode)
	if err != nil {
		return nil, err
	}

	return &Artifact{
		ContractName:    raw.ContractName,
		Path:            path,
		ABI:             parsedABI,
		Bytecode:        bytecode,
		CompilerVersion: compilerVersion(raw),
	}, nil
}

// parseBytecode accepts "0x..." or {"object": "0x..."}
func parseBytecode(raw json.RawMessage) ([]byte, error) {
	var code string
	if err := json.Unmarshal(raw, &code); err != nil {
		var obj struct {
			Object string `json:"object"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("unrecognised bytecode format")
		}
		code = obj.Object
	}

	if code == "" || code == "0x" {
		return nil, fmt.Errorf("artifact has no creation bytecode (abstract contract or interface?)")
	}
	if strings.Contains(code, "__") {
		return nil, fmt.Errorf("bytecode has unlinked library placeholders")
	}
	if !strings.HasPrefix(code, "0x") {
		code = "0x" + code
	}

	bytecode, err := hexutil.Decode(code)
	if err != nil {
		return nil, fmt.Errorf("invalid bytecode: %w", err)
	}
	return bytecode, nil
}

func compilerVersion(raw rawArtifact) string {
	if raw.Compiler.Version != "" {
		return raw.Compiler.Version
	}
	if len(raw.Metadata) == 0 {
		return ""
	}

	metadata := []byte(raw.Metadata)
	var encoded string
	if err := json.Unmarshal(raw.Metadata, &encoded); err == nil {
		metadata = []byte(encoded)
	}

	var md rawMetadata
	if err := json.Unmarshal(metadata, &md); err != nil {
		return ""
	}
	return md.Compiler.Version
}

// CheckCompiler verifies that an artifact built by version satisfies the
// network's compiler constraint. Build metadata (+commit...) is ignored.
// Artifacts without a recorded version are accepted.
func CheckCompiler(version, constraint string) error {
	if version == "" || constraint == "" {
		return nil
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid compiler version '%s': %w", constraint, err)
	}
	v, err := semver.NewVersion(strings.TrimPrefix(version, "v"))
	if err != nil {
		return fmt.Errorf("artifact has unparseable compiler version '%s': %w", version, err)
	}
	if !c.Check(v) {
		return fmt.Errorf("artifact was compiled with solc %s but the network requires %s", v, constraint)
	}
	return nil
}
