/*
Package compiler translates a subset of SysY into RISC-V assembly.

Process of compilation

Program Text ->
	parse ->
Abstract Syntax Tree (ast) ->
	front (operators rewritten by lower) ->
Intermediate Representation (ir) ->
	back ->
Assembly Text (asm/riscv) ->
	sim ->
Exit Status

The IR can be printed with format at any point.
*/
package compiler
