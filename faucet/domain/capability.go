package domain

import "strings"

// CapabilitySet é o bitmask de permissões de um endereço.
//
// As operações são sempre sobre bits nomeados: nunca manipule o inteiro cru
// fora deste tipo, para que adicionar/remover um bit preserve todos os outros.
type CapabilitySet uint64

const (
	// CapUser autoriza withdraw e mint (mesmo nível de confiança para os dois canais).
	CapUser CapabilitySet = 1 << iota
	// CapManager autoriza operações administrativas e edição em massa de usuários.
	CapManager
	// CapGateAdmin autoriza escrita direta no gate de permissões.
	// Normalmente só a identidade do próprio serviço possui este bit.
	CapGateAdmin
)

// Has responde se todos os bits de c estão presentes em s.
func (s CapabilitySet) Has(c CapabilitySet) bool { return s&c == c }

// With retorna s com os bits de c ligados (união).
func (s CapabilitySet) With(c CapabilitySet) CapabilitySet { return s | c }

// Without retorna s com os bits de c desligados (diferença), preservando o resto.
func (s CapabilitySet) Without(c CapabilitySet) CapabilitySet { return s &^ c }

func (s CapabilitySet) String() string {
	if s == 0 {
		return "none"
	}
	names := make([]string, 0, 3)
	if s.Has(CapUser) {
		names = append(names, "user")
	}
	if s.Has(CapManager) {
		names = append(names, "manager")
	}
	if s.Has(CapGateAdmin) {
		names = append(names, "gate-admin")
	}
	if rest := s &^ (CapUser | CapManager | CapGateAdmin); rest != 0 {
		names = append(names, "unknown")
	}
	return strings.Join(names, "|")
}
