package domain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// AccessGate é o colaborador externo que guarda o bitmask de permissões por
// endereço. Este sistema depende só deste contrato, nunca da implementação.
//
// SetBitmask recebe explicitamente a identidade com cuja autoridade a escrita
// é feita (authority). O padrão de auto-invocação do RoleManager passa aqui a
// identidade do próprio serviço, não a do caller: um manager pode conceder ou
// revogar o bit de usuário sem precisar ter autoridade direta de escrita no gate.
type AccessGate interface {
	HasCapability(ctx context.Context, addr common.Address, c CapabilitySet) (bool, error)
	Bitmask(ctx context.Context, addr common.Address) (CapabilitySet, error)
	SetBitmask(ctx context.Context, authority, addr common.Address, mask CapabilitySet) error
}
