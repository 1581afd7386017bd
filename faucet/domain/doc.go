// Package domain define contratos e tipos de domínio do tesouro com cota por época.
//
// Este pacote não depende de net/http nem de implementações concretas.
// A intenção é permitir testes de unidade puros e desacoplar regras de negócio
// de detalhes de infraestrutura (gate de permissões, store de estado, chamadas externas).
package domain
