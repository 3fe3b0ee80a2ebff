// Package reedfrost implements the Reed-Frost chain-binomial epidemic model.
//
// Each generation every susceptible independently escapes each of the i
// infectious individuals with probability 1-p, so the number of new cases is
// Binomial(s, 1-(1-p)^i). Engine enumerates that process to obtain exact
// final-size probabilities; Simulator samples it to produce trajectories.
package reedfrost
