// Package binaries assigns every resolved module to exactly one binary.
//
// Monolithic targets link every module into the executable; plugin modules
// are compiled into static libraries that the executable also lists.
// Modular targets get one dynamic library per module. Filters narrow the
// binary list for only-modules, hot-reload, installed-mod and single-file
// builds, and the linker fixups translation unit keeps static initializers
// of monolithic executables alive.
package binaries
