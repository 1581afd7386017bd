// Package application contém os casos de uso do tesouro: contabilidade de cota
// por época, saque, proxy de mint, edição em massa de usuários e configuração.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Toda operação pública valida permissão primeiro e aborta inteira na primeira
// falha; as mutações de estado passam pela unidade de trabalho do domain.State.
package application
