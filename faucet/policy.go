package faucet

import (
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"treasury-faucet/faucet/domain"
	"treasury-faucet/faucet/infra"
)

// Policy é a configuração inicial do tesouro, carregada de um arquivo yaml no
// boot: parâmetros de época, quem é manager, quem já nasce usuário, overrides
// e o saldo inicial do pool.
type Policy struct {
	EpochSeconds int64             `yaml:"epoch_seconds"`
	DefaultLimit string            `yaml:"default_limit"`
	Managers     []string          `yaml:"managers"`
	Users        []string          `yaml:"users"`
	Overrides    map[string]string `yaml:"overrides"`
	InitialPool  string            `yaml:"initial_pool"`
}

// LoadPolicy lê o arquivo se existir; caminho vazio ou arquivo ausente devolve
// a policy vazia (só os defaults valem).
func LoadPolicy(path string) (*Policy, error) {
	p := &Policy{}
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return nil, fmt.Errorf("read policy: %w", err)
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Policy) Validate() error {
	if p.EpochSeconds < 0 {
		return fmt.Errorf("policy: epoch_seconds must not be negative")
	}
	for _, s := range append(append([]string{}, p.Managers...), p.Users...) {
		if !common.IsHexAddress(s) {
			return fmt.Errorf("policy: invalid address %q", s)
		}
	}
	for addr, limit := range p.Overrides {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("policy: invalid override address %q", addr)
		}
		if _, err := parseAmount(limit); err != nil {
			return fmt.Errorf("policy: override %s: %w", addr, err)
		}
	}
	for _, field := range []string{p.DefaultLimit, p.InitialPool} {
		if field == "" {
			continue
		}
		if _, err := parseAmount(field); err != nil {
			return fmt.Errorf("policy: %w", err)
		}
	}
	return nil
}

// EpochConfig devolve os parâmetros de época, com os defaults do serviço
// (época de 86400s, limite 10) onde a policy não diz nada.
func (p *Policy) EpochConfig() domain.EpochConfig {
	cfg := domain.EpochConfig{
		EpochLength:  86400 * time.Second,
		DefaultLimit: big.NewInt(10),
	}
	if p.EpochSeconds > 0 {
		cfg.EpochLength = time.Duration(p.EpochSeconds) * time.Second
	}
	if p.DefaultLimit != "" {
		if v, err := parseAmount(p.DefaultLimit); err == nil {
			cfg.DefaultLimit = v
		}
	}
	return cfg
}

// Apply semeia o gate e o estado: a identidade do serviço ganha gate-admin,
// managers e usuários ganham seus bits, overrides e pool inicial entram no store.
func (p *Policy) Apply(gate *infra.MemoryGate, st domain.State, self common.Address) error {
	gate.Grant(self, domain.CapGateAdmin)
	for _, s := range p.Managers {
		gate.Grant(common.HexToAddress(s), domain.CapManager)
	}
	for _, s := range p.Users {
		gate.Grant(common.HexToAddress(s), domain.CapUser)
	}

	return st.Update(func(tx domain.StateWriter) error {
		for addr, limit := range p.Overrides {
			v, err := parseAmount(limit)
			if err != nil {
				return err
			}
			tx.SetOverride(common.HexToAddress(addr), v)
		}
		if p.InitialPool != "" {
			v, err := parseAmount(p.InitialPool)
			if err != nil {
				return err
			}
			tx.CreditPool(v)
		}
		return nil
	})
}
